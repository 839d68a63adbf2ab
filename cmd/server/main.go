// Command snippets runs the snippet-saver web server and its maintenance
// tasks.
//
//	snippets              same as `snippets serve`
//	snippets serve        start the HTTP server
//	snippets migrate up   apply pending migrations
//	snippets migrate down roll every migration back
//	snippets seed         replace all snippets with the bundled fixture
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
