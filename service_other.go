//go:build !windows

package main

// HandleServiceCommand is a no-op outside Windows; the application always
// runs in the foreground. Returns false so normal flag handling proceeds.
func HandleServiceCommand(args []string) bool {
	return false
}
