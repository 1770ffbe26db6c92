// # Configuration file
//
// A configuration file mirrors the Config structure. Credential and node
// keys use the workflow editor's names; runtime keys use snake_case.
//
//	credentials:
//	  snowflake:
//	    account: xy12345.eu-west-1
//	    database: ANALYTICS
//	    schema: PUBLIC
//	    warehouse: COMPUTE_WH
//	    authentication: password
//	    username: ${SNOWFLAKE_USER}
//	    password: ${SNOWFLAKE_PASSWORD}
//
//	node:
//	  operation: executeQuery
//	  query: SELECT * FROM orders WHERE customer_id = {{ $json.customerId }}
//	  outputFormat: csv
//
//	runtime:
//	  batch_size: 500
//	  binary:
//	    mode: s3
//	    bucket: exports
//	    compression: gzip
//
// # Environment Variable Substitution
//
// ${VAR_NAME} is replaced with the variable's value before parsing, and
// ${VAR_NAME:-fallback} falls back when the variable is unset or empty.
// Keep secrets out of the file this way.
package config
