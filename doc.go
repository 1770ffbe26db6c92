// Package nebulasnowflake is a Snowflake node for workflow automation. It
// runs SQL queries, inserts and updates against a Snowflake warehouse for a
// list of workflow items, and can stream large query results straight into
// a CSV attachment without buffering the result set.
//
// # Architecture
//
// Every invocation follows the same path:
//
//  1. The node resolves the stored credentials (password, key pair or OAuth2)
//     into a driver configuration and opens one session.
//  2. The configured operation runs on that session:
//     executeQuery (JSON rows or CSV export), insert or update.
//  3. The session is destroyed on every exit path.
//
// CSV exports use two goroutines joined by a bounded queue: the streaming
// executor pushes rows into the CSV bridge, and the binary sink pulls CSV
// text from it as an io.Reader. The sink keeps the attachment in memory or
// writes it to a directory, S3 or GCS, optionally compressed.
//
// # Quick Start
//
//	cfg, err := config.LoadConfig("node.yaml")
//	if err != nil {
//	    return err
//	}
//
//	n, err := node.New(cfg, node.WithLogger(logger.Get()))
//	if err != nil {
//	    return err
//	}
//	defer n.Close()
//
//	out, err := n.Execute(ctx, items)
//
// The snowflake-node command wraps the same steps:
//
//	snowflake-node init-config --config node.yaml
//	snowflake-node run --config node.yaml --input items.json
//
// # Key Packages
//
//	pkg/node       - Operation dispatch and the node description
//	pkg/snowflake  - Session lifecycle, buffered and streaming execution
//	pkg/csvbridge  - Row stream to CSV text stream
//	pkg/binary     - Attachment sinks (memory, filesystem, S3, GCS)
//	pkg/auth       - Credential shapes and driver configuration
//	pkg/config     - YAML configuration with environment substitution
//	pkg/workflow   - Items, binary data and expression resolution
//	pkg/errors     - Structured error handling
//	pkg/logger     - Structured logging
//	pkg/metrics    - Prometheus metrics
//
// # Configuration
//
// Environment variables are supported with ${VAR_NAME} and
// ${VAR_NAME:-fallback} syntax. A .env file in the working directory is
// loaded by the command before the configuration is read.
package nebulasnowflake
