// Command procbridge runs a host and its worker from one binary.
//
// "procbridge run" starts a host that supervises "procbridge worker" (or any
// worker given with --worker), sends a batch of demo requests and prints a
// health table. "procbridge config" renders or validates the TOML config.
package main
