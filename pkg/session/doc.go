/*
Package session serializes access to a run's checkpoint.

A Manager keeps one reference-counted mutex per run ID inside the process and,
when configured with a ports.DistributedLocker, also takes a cross-process lock
so that only one trainer at a time advances a given run.
*/
package session
