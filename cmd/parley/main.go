// Command parley serves and exercises dialogue rule sets.
package main

func main() {
	Execute()
}
