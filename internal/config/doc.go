// Package config loads cfsui configuration.
//
// Values come from three layers, later ones winning:
//   - built-in defaults (New)
//   - cfsui.yaml in the working directory, or the file given with --config
//   - CFSUI_ environment variables, with "__" separating nested keys
//
// Example cfsui.yaml:
//
//	server:
//	  addr: ":8080"
//	  root: /ui
//	  cors_origins: ["http://localhost:3000"]
//	auth:
//	  username: admin
//	  password: secret
//	store:
//	  backend: s3
//	  s3:
//	    bucket: cabinet
//	    endpoint: http://localhost:9000
//	    path_style: true
//	client:
//	  policy: latest
//
// The same bucket can be selected with CFSUI_STORE__S3__BUCKET=cabinet.
package config
