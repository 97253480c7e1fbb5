// Package scoring holds the instrument scoring kernel: pure functions that map
// raw instrument inputs onto a common 0-100 scale.
//
// Every composite tolerates missing inputs by averaging only over the inputs
// that were supplied. When nothing usable was supplied the composite is zero
// and the breakdown is empty; callers treat an empty breakdown as "absent".
//
// Band boundaries and weights live here and nowhere else.
package scoring
