/*
Package session implements session access orchestration.

A dialogue turn reads, mutates and writes back a session's state document. The
Manager guarantees that only one turn per session runs at a time, locally through
reference-counted mutexes and across replicas through an optional DistributedLocker.
*/
package session
