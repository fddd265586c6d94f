// Package wire defines the messages exchanged between warren agents and the
// JSON framing used when they travel over a networked transport.
//
// Three kinds carry the BnB-ADOPT algorithm itself (VALUE, COST, TERMINATE).
// The rest are the collaborator interfaces: the DFS view from the pseudo-tree
// constructor, pre-processing bounds, lifecycle signals and the stats stream.
package wire
