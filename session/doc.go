// Package session keeps conversation threads addressable by id for the
// lifetime of the process. Persistence across restarts is out of scope;
// other backends can implement Store without changing callers.
package session
