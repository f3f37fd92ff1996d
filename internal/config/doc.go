// Package config loads the lazyblog server configuration.
//
// Settings are applied in order, each layer overriding the previous one:
//
//  1. built-in defaults (Default)
//  2. lazyblog.json, lazyblog.yaml or lazyblog.yml in the working directory
//  3. a .env file, if present
//  4. LAZYBLOG_* environment variables
//
// Command-line flags are applied on top by the caller.
//
// # Configuration File
//
//	{
//	  "addr": ":8080",
//	  "logLevel": "info",
//	  "posts": {
//	    "source": "sqlite",
//	    "sqlitePath": "lazyblog.db",
//	    "seed": true
//	  },
//	  "cache": {
//	    "redisURL": "redis://localhost:6379/0",
//	    "ttl": "30s"
//	  },
//	  "bundles": {
//	    "source": "embed",
//	    "delay": "400ms"
//	  }
//	}
//
// Unknown keys are rejected.
//
// # Environment
//
// Nested keys join with underscores: posts.source is LAZYBLOG_POSTS_SOURCE,
// bundles.s3.bucket is LAZYBLOG_BUNDLES_S3_BUCKET.
package config
