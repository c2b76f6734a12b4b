package composite

import (
	"database/sql"
	"errors"
	"math/rand/v2"
	"sync/atomic"
)

// DBResolver holds a primary connection and its read replicas.
// Tables built with WithResolver send related-record reads to a replica and
// saves to the primary.
type DBResolver struct {
	primary  *sql.DB
	replicas []*sql.DB
	lb       LoadBalancer
}

// LoadBalancer picks a replica from a pool.
type LoadBalancer interface {
	Next(replicas []*sql.DB) *sql.DB
}

// RoundRobinLoadBalancer cycles through replicas in order.
type RoundRobinLoadBalancer struct {
	counter uint64
}

// Next returns the next replica in round-robin order.
func (r *RoundRobinLoadBalancer) Next(replicas []*sql.DB) *sql.DB {
	if len(replicas) == 0 {
		return nil
	}
	if len(replicas) == 1 {
		return replicas[0]
	}

	idx := atomic.AddUint64(&r.counter, 1) - 1
	return replicas[idx%uint64(len(replicas))]
}

// RandomLoadBalancer picks a replica uniformly at random.
type RandomLoadBalancer struct{}

// Next returns a random replica.
func (RandomLoadBalancer) Next(replicas []*sql.DB) *sql.DB {
	if len(replicas) == 0 {
		return nil
	}
	return replicas[rand.IntN(len(replicas))]
}

// ResolverOption configures a DBResolver.
type ResolverOption func(*DBResolver)

// WithPrimary sets the primary database connection.
func WithPrimary(db *sql.DB) ResolverOption {
	return func(r *DBResolver) {
		r.primary = db
	}
}

// WithReplicas sets the replica database connections.
func WithReplicas(dbs ...*sql.DB) ResolverOption {
	return func(r *DBResolver) {
		r.replicas = dbs
	}
}

// WithLoadBalancer sets the replica selection strategy.
// Default is a RoundRobinLoadBalancer.
func WithLoadBalancer(lb LoadBalancer) ResolverOption {
	return func(r *DBResolver) {
		r.lb = lb
	}
}

// NewDBResolver builds a resolver from opts.
func NewDBResolver(opts ...ResolverOption) *DBResolver {
	r := &DBResolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.lb == nil {
		r.lb = &RoundRobinLoadBalancer{}
	}
	return r
}

// Primary returns the primary database connection.
func (r *DBResolver) Primary() *sql.DB {
	return r.primary
}

// Replica returns a replica chosen by the load balancer, or the primary
// when no replicas are configured.
func (r *DBResolver) Replica() *sql.DB {
	if len(r.replicas) == 0 {
		return r.primary
	}
	return r.lb.Next(r.replicas)
}

// ReplicaAt returns the replica at index, or nil when out of range.
func (r *DBResolver) ReplicaAt(index int) *sql.DB {
	if index < 0 || index >= len(r.replicas) {
		return nil
	}
	return r.replicas[index]
}

// HasReplicas reports whether any replicas are configured.
func (r *DBResolver) HasReplicas() bool {
	return len(r.replicas) > 0
}

// Close closes the primary and every replica.
func (r *DBResolver) Close() error {
	var errs []error
	if r.primary != nil {
		errs = append(errs, r.primary.Close())
	}
	for _, db := range r.replicas {
		errs = append(errs, db.Close())
	}
	return errors.Join(errs...)
}
