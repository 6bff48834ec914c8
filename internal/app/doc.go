// Package app wires the anemia survey service together: configuration,
// logging, telemetry, the document store, the processing pipeline, and
// the HTTP server with its middleware chain.
//
// The initialization sequence:
//
//	1. Load configuration from environment and optional YAML file
//	2. Initialize logging and telemetry
//	3. Connect to the document store and ensure indexes
//	4. Build the pipeline services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Start the server and wait for shutdown
package app
