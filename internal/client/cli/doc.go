// Package cli implements the interactive guestkeeper admin console.
//
// Commands
//
//	help             show available commands
//	l, list          list users and their live guest tokens
//	create           issue a guest token and print its login link
//	delete           revoke and delete a guest token by id
//	adduser          add a user (local identity provider only)
//	ping             check that the public login endpoint answers
//	exit, quit       leave the program
//
// Input is read line by line from stdin; the admin secret, when prompted
// for, is read without echo through golang.org/x/term.
package cli
