// Package ui is the cabinet browser application.
//
// It registers six routes under the /ui root:
//
//	/                             tag list
//	/stat                         storage totals
//	/tags/:id                     files of the current version of a tag
//	/tags/:id/files/:file         one file, rendered as Markdown or text
//	/tags/:id/versions            recorded versions of a tag
//	/tags/:id/versions/:version   files of one version
//
// Each handler fetches JSON from the API server and renders one of the
// embedded templates into the ".content" region. The templates are inlined
// into the shell page by Shell, so the browser and the headless page read
// them the same way.
package ui
