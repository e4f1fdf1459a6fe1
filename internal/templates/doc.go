// Package templates provides the starter layouts written by `cfsui init`.
//
// # Available Templates
//
//   - minimal: cfsui.yaml and an empty file-system cabinet
//   - s3: cfsui.yaml reading the cabinet from an S3 bucket
//   - custom: minimal plus a copy of the UI templates and assets under
//     internal/ui, picked up by `cfsui serve --reload`
//
// # Usage
//
//	tmpl, err := templates.Get("custom")
//	if err != nil {
//	    return err
//	}
//	if err := tmpl.Create(dir, templates.Config{Name: "docs"}); err != nil {
//	    return err
//	}
//
// # Template Variables
//
// Generated files are text/template sources:
//
//	{{.Name}}       - Project name, used as the log and metrics namespace
//	{{.Addr}}       - Listen address
//	{{.StoreDir}}   - Cabinet directory for the fs backend
//	{{.Bucket}}     - S3 bucket
//	{{.Region}}     - S3 region
//	{{.Endpoint}}   - S3-compatible endpoint, optional
package templates
