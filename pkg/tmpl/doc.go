// Package tmpl is a small inline template engine for rendering API data into
// HTML fragments.
//
// Templates are plain text with embedded regions between "<%" and "%>":
//
//	<h1><%= tag.name %></h1>
//	<% if files.length > 0 { %>
//	  <ul>
//	  <% for f in files { %>
//	    <li><a href="/ui/tags/<%= tag.name %>/files/<%= f %>"><%= f %></a></li>
//	  <% } %>
//	  </ul>
//	<% } else { %>
//	  <p>empty</p>
//	<% } %>
//
// # Regions
//
//	<%= expr %>   output, HTML-escaped
//	<%- expr %>   output, raw
//	<%# text %>   comment
//	<% expr %>    output, raw (when the region is not a control statement)
//	<% stmt %>    control statement
//
// Control statements start with one of: if, else, for, switch, case, default,
// break, end, "{" or "}". Blocks are closed either by "end" or by "}", and a
// trailing "{" after if/else/for/switch is optional:
//
//	<% if a %> … <% else if b %> … <% else %> … <% end %>
//	<% for v in list %> … <% end %>
//	<% for i, v in list %> … <% else %> (empty) <% end %>
//	<% switch kind %><% case "a", "b" %> … <% default %> … <% end %>
//
// Cases never fall through; "break" leaves the innermost loop or switch.
//
// # Expressions
//
// Expressions support literals (numbers, quoted strings, true, false, null),
// identifiers, member access (a.b), indexing (a[0], m["k"]), the pseudo
// property .length, calls of registered functions, unary ! and -, the binary
// operators * / % + - < <= > >= == != === !== && ||, and the ternary a ? b : c.
//
// # Scope
//
// Templates are executed against a Scope. Every top-level property of the data
// value (map keys, struct fields or their json names) is visible as an
// identifier. Referencing an identifier that the scope does not define is an
// evaluation error wrapping ErrUndefined; it never renders as an empty string.
//
// Compilation is a single scan that builds a node tree; no code is generated
// or evaluated at run time.
package tmpl
