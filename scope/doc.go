// Package scope provides scoped spawning of concurrent tasks over pluggable
// executor backends. A Scope owns the join handle of every task spawned
// through it and exposes the outputs as a lazy, completion-ordered sequence;
// no path out of a drive releases the scope before every handle is retired.
package scope
