package analyze

import (
	"time"

	"github.com/go-sod/cod/internal/report"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"COD_REQUEST_TIMEOUT" default:"60s"`
	Report         report.Config
}
