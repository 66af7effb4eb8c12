// Package schemafile reads declarative schema documents from JSON or YAML
// files (or from an OpenAPI request body) and compiles them into the
// descriptor trees the engine renders.
//
// A document looks like:
//
//	id: signup
//	fields:
//	  - name: user.email
//	    kind: text
//	    transform: [trim, lower]
//	    validate:
//	      required: true
//	      pattern: "^[^@]+@[^@]+$"
//	  - group: company
//	    visible: "user.type == business"
//	    children:
//	      - name: company.name
//	        validate: {required: true, maxLength: 80}
//
// Rule strings use the syntax of package visibility/expr.
package schemafile
