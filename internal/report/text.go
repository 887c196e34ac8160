package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-sod/cod/pkg/cluster"
	"github.com/go-sod/cod/pkg/dataset"
)

// WriteClusters lists every cluster of set with its centroid, SSE and
// member ids.
func WriteClusters(w io.Writer, strategy string, set *cluster.Set) error {
	total, err := set.SSE()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s clustering:\n\tk: %d\n\tsse: %s\n", strategy, set.Len(), formatFloat(total))
	for _, c := range set.Clusters() {
		sse, err := c.SSE()
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "\ncluster %d: %d members, sse: %s\n\tcentroid: %s",
			c.ID()+1, c.Len(), formatFloat(sse), centroidLabel(c.Centroid()))
		for _, v := range c.Members() {
			fmt.Fprintf(&buf, "\n\t%s", v.ID())
		}
		buf.WriteString("\n")
	}
	_, err = buf.WriteTo(w)
	return err
}

func centroidLabel(c cluster.Centroid) string {
	if _, ok := c.Member(); ok {
		return c.Vector().ID()
	}
	return c.Vector().String()
}

// WriteCurve writes the SSE curve starting at minK and the selected k.
func WriteCurve(w io.Writer, minK int, curve []float64, best int) error {
	var buf bytes.Buffer
	buf.WriteString("k, sse\n")
	for i, sse := range curve {
		fmt.Fprintf(&buf, "%d, %s\n", minK+i, formatFloat(sse))
	}
	fmt.Fprintf(&buf, "\nbest k: %d\n", best)
	_, err := buf.WriteTo(w)
	return err
}

// WriteVectors writes a titled list of vector ids.
func WriteVectors(w io.Writer, title string, vectors []*dataset.Vector) error {
	var buf bytes.Buffer
	buf.WriteString(title)
	buf.WriteString(":\n")
	for _, v := range vectors {
		fmt.Fprintf(&buf, "\n\t%s", v.ID())
	}
	buf.WriteString("\n\n")
	_, err := buf.WriteTo(w)
	return err
}
