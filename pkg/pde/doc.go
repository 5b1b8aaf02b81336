// Package pde describes the boundary-value problems a curriculum run trains on:
// a fixed spatial box, a time horizon, an analytic reference solution and the
// Dirichlet conditions derived from it.
//
// The reference and the box are fixed for the whole run. Only the upper time
// bound of each round changes, so the conditions built here are identical in
// every round.
package pde
