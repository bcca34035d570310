package record

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/benchtop/labrec/internal/recstore"
)

//go:embed record.cue
var schemaCUE []byte

var (
	compileOnce sync.Once
	schemaVal   cue.Value
	compileErr  error
)

// compiledSchema compiles the embedded CUE definitions once per
// process. A compile failure here is a programming error in
// record.cue, not a user fault.
func compiledSchema() (cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		schemaVal = ctx.CompileBytes(schemaCUE)
		compileErr = schemaVal.Err()
	})
	return schemaVal, compileErr
}

// ValidatePublication checks a publication submission before it
// reaches any store: field names must be declared, a present year must
// lie in [1900, 2100], and at least one field or the attachment must
// be populated. The store itself enforces none of this.
func ValidatePublication(values map[string]string, att *recstore.Attachment) error {
	return validateSubmission("publication", "#Publication", values, att)
}

// ValidateSequence checks a sequence submission before it reaches any
// store.
func ValidateSequence(values map[string]string, att *recstore.Attachment) error {
	return validateSubmission("sequence", "#Sequence", values, att)
}

func validateSubmission(kind, defName string, values map[string]string, att *recstore.Attachment) error {
	if countPopulated(values) == 0 && att == nil {
		return fmt.Errorf("a %s needs at least one populated field or an attachment", kind)
	}
	if att != nil && (att.Filename == "" || len(att.Data) == 0) {
		return fmt.Errorf("%s attachment requires both filename and data", kind)
	}

	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("record schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath(defName))
	if !def.Exists() {
		return fmt.Errorf("record schema: definition %s not found", defName)
	}

	// Unifying the submission with the closed definition rejects
	// unknown fields and out-of-range values in one pass.
	submission := schema.Context().Encode(populated(values))
	if err := submission.Err(); err != nil {
		return fmt.Errorf("encode %s submission: %w", kind, err)
	}
	if err := def.Unify(submission).Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", kind, err)
	}
	return nil
}

// populated strips empty-string values: an empty form box is an absent
// field, not a present-but-blank one.
func populated(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func countPopulated(values map[string]string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
