// Package cluster holds the partition produced by a clustering run.
//
// Clusters are addressed by an integer id. A Cluster owns the Centroid it was
// assigned around and references its members by dataset index. Sets are
// built once from an assignment and never change afterwards.
package cluster

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/geom"
	"gonum.org/v1/gonum/floats/scalar"
)

// SSEPlaces is the rounding applied to the SSE of a whole Set.
const SSEPlaces = 2

var ErrInvalidAssignment = errors.New("cluster: invalid assignment")

// Centroid is the center of a cluster: either a synthetic vector (the mean of
// the members) or one of the dataset vectors (a medoid).
type Centroid struct {
	vec    *dataset.Vector
	member int
}

// Synthetic wraps a computed vector that belongs to no dataset.
func Synthetic(vec *dataset.Vector) Centroid {
	return Centroid{vec: vec, member: -1}
}

// FromMember uses the dataset vector at idx as the centroid.
func FromMember(ds *dataset.Dataset, idx int) Centroid {
	return Centroid{vec: ds.At(idx), member: idx}
}

func (c Centroid) Vector() *dataset.Vector {
	return c.vec
}

// Member returns the dataset index the centroid was taken from.
func (c Centroid) Member() (int, bool) {
	return c.member, c.member >= 0
}

// Equal compares centroids by value.
func (c Centroid) Equal(o Centroid) bool {
	return c.vec.Equal(o.vec)
}

type Cluster struct {
	id       int
	centroid Centroid
	members  []int
	ds       *dataset.Dataset
}

func (c *Cluster) ID() int {
	return c.id
}

func (c *Cluster) Centroid() Centroid {
	return c.centroid
}

func (c *Cluster) Len() int {
	return len(c.members)
}

// Indices returns the dataset indices of the members in assignment order.
func (c *Cluster) Indices() []int {
	indices := make([]int, len(c.members))
	copy(indices, c.members)
	return indices
}

func (c *Cluster) Member(i int) *dataset.Vector {
	return c.ds.At(c.members[i])
}

func (c *Cluster) Members() []*dataset.Vector {
	members := make([]*dataset.Vector, len(c.members))
	for i, idx := range c.members {
		members[i] = c.ds.At(idx)
	}
	return members
}

// SSE is the sum of squared distances from the members to the centroid.
func (c *Cluster) SSE() (float64, error) {
	var sse float64
	for _, idx := range c.members {
		d, err := geom.SquaredDistance(c.ds.At(idx), c.centroid.vec)
		if err != nil {
			return 0, fmt.Errorf("cluster %d: %w", c.id, err)
		}
		sse += d
	}
	return sse, nil
}

// Set maps cluster ids to clusters over one dataset.
type Set struct {
	ds       *dataset.Dataset
	clusters []*Cluster
}

// FromAssignments builds one cluster per centroid, ids 0..k-1, and places
// dataset vector i into cluster assignments[i]. Members keep dataset order.
func FromAssignments(ds *dataset.Dataset, centroids []Centroid, assignments []int) (*Set, error) {
	if len(assignments) != ds.Len() {
		return nil, fmt.Errorf("%w: %d assignments for %d vectors", ErrInvalidAssignment, len(assignments), ds.Len())
	}
	s := &Set{ds: ds, clusters: make([]*Cluster, len(centroids))}
	for id, c := range centroids {
		s.clusters[id] = &Cluster{id: id, centroid: c, ds: ds}
	}
	for idx, id := range assignments {
		if id < 0 || id >= len(centroids) {
			return nil, fmt.Errorf("%w: vector %d assigned to %d of %d clusters", ErrInvalidAssignment, idx, id, len(centroids))
		}
		s.clusters[id].members = append(s.clusters[id].members, idx)
	}
	return s, nil
}

func (s *Set) Dataset() *dataset.Dataset {
	return s.ds
}

// Len is the number of clusters.
func (s *Set) Len() int {
	return len(s.clusters)
}

// Size is the number of member vectors over all clusters.
func (s *Set) Size() int {
	var n int
	for _, c := range s.clusters {
		n += c.Len()
	}
	return n
}

// Clusters returns the clusters ordered by id.
func (s *Set) Clusters() []*Cluster {
	clusters := make([]*Cluster, len(s.clusters))
	copy(clusters, s.clusters)
	return clusters
}

func (s *Set) Cluster(id int) (*Cluster, bool) {
	i := sort.Search(len(s.clusters), func(i int) bool { return s.clusters[i].id >= id })
	if i < len(s.clusters) && s.clusters[i].id == id {
		return s.clusters[i], true
	}
	return nil, false
}

func (s *Set) Centroids() []Centroid {
	centroids := make([]Centroid, len(s.clusters))
	for i, c := range s.clusters {
		centroids[i] = c.centroid
	}
	return centroids
}

// Subset keeps the clusters accepted by keep. Ids are preserved.
func (s *Set) Subset(keep func(*Cluster) bool) *Set {
	sub := &Set{ds: s.ds}
	for _, c := range s.clusters {
		if keep(c) {
			sub.clusters = append(sub.clusters, c)
		}
	}
	return sub
}

// SSE sums the cluster SSEs and rounds to SSEPlaces decimals.
func (s *Set) SSE() (float64, error) {
	var sse float64
	for _, c := range s.clusters {
		e, err := c.SSE()
		if err != nil {
			return 0, err
		}
		sse += e
	}
	return scalar.Round(sse, SSEPlaces), nil
}

// Equal reports whether both sets hold equal centroids and identical members
// under the same ids.
func (s *Set) Equal(o *Set) bool {
	if len(s.clusters) != len(o.clusters) {
		return false
	}
	for i, c := range s.clusters {
		oc := o.clusters[i]
		if c.id != oc.id || !c.centroid.Equal(oc.centroid) || len(c.members) != len(oc.members) {
			return false
		}
		for j := range c.members {
			if c.members[j] != oc.members[j] {
				return false
			}
		}
	}
	return true
}
