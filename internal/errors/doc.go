// Package errors provides coded, actionable error messages for the cfsui
// command line and development server.
//
// Errors carry a code that maps to a registered message, explanation and
// documentation link:
//   - E1xx: routing and templates
//   - E2xx: configuration
//   - E3xx: fetching and cabinet storage
//   - E4xx: command line usage
//
// FromError classifies errors returned by the router, template engine,
// navigation controller and fetch client. Template errors keep their line and
// column, and when the template source is supplied the surrounding lines are
// shown:
//
//	_, err := tmpl.Render(src, data)
//	errors.Fprint(os.Stderr, err, src)
//	// ERROR E104: Template evaluation failed
//	//   tmpl: tags:3:9: <%= tag.nmae %>: tmpl: no such field
//	//
//	//   tags:3:9
//	//
//	//        1 │ <ul>
//	//        2 │ <% for tag in tags %>
//	//   →    3 │   <li><%= tag.nmae %></li>
//	//          │         ^
package errors
