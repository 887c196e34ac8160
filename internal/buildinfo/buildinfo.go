package buildinfo

import "fmt"

const Graffiti = "  ____ ___  ____  \n / ___/ _ \\|  _ \\ \n| |  | | | | | | |\n| |__| |_| | |_| |\n \\____\\___/|____/ \n\n"

var (
	BuildTag string = "v0.0.0"
	Name     string = "COD"
	Time     string = ""
)

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

// String is the one-line banner printed at startup.
func (b buildinfo) String() string {
	return fmt.Sprintf("%s: %s, %s", b.Name(), b.Time(), b.Tag())
}

var Info buildinfo
