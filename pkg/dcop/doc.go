// Package dcop defines the shared problem model for warren: variables,
// domains, cost arithmetic, constraint spaces and assignments. It is the
// vocabulary shared between the solver engine, the pre-processing modules
// and the CLI.
//
// warren solves minimisation problems with non-negative costs only. Cost
// carries a dedicated +infinity sentinel with saturating arithmetic, because
// the BnB-ADOPT engine initialises upper bounds to +infinity and sums them.
package dcop
