// Package cli is the interactive command-line front end of the incident desk.
//
// NewApp wires configuration, the local SQLite database, the session manager,
// the request pipeline and the services; App.Run then serves a line-oriented
// REPL until the user exits. Commands other than login, help and exit need a
// signed-in session. A command that ends with NotAuthenticated drops the local
// session and asks the user to log in again.
package cli
