// Package schemas embeds the JSON Schemas for debugprompt's input files.
package schemas

import _ "embed"

//go:embed failure_record.schema.json
var FailureRecordSchemaJSON string
