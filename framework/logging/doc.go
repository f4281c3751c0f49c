// Package logging is a scope-aware logging service built on the container.
//
// Provide turns partial Options and a set of features into a bundle:
//
//	b, err := logging.Provide(
//	    logging.Options{}.WithName("admin").WithChain(true),
//	    logging.WithFields(logging.F("area", "admin")),
//	)
//	admin, err := container.Activate(root, b)
//	log := container.MustGet(admin, logging.LoggerKey)
//
// Every scope activated with such a bundle gets its own Logger, writing to
// the appenders bound in that scope. With Chain set, entries are also handed
// to the logger of the nearest ancestor scope, which applies its own level
// and filter. A scope without logging bindings shares its ancestor's logger.
package logging
