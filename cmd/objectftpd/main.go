// Command objectftpd runs an FTP server whose filesystem is backed by an
// object store (objectfs) or, for local development, a plain directory
// (memfs).
package main

func main() {
	Execute()
}
