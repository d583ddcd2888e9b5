package export

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
	"github.com/tidwall/gjson"
)

// resultFields lists every key the render service may return and its JSON type
var resultFields = map[string]gjson.Type{
	"success":          gjson.True, // True or False
	"videoUrl":         gjson.String,
	"storagePath":      gjson.String,
	"fileSize":         gjson.Number,
	"mediaFileId":      gjson.String,
	"processingTimeMs": gjson.Number,
	"error":            gjson.String,
}

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// ParseResult decodes a render response against the strict result schema.
// Unknown keys, wrong types, and successes without a video are all rejected.
func ParseResult(body []byte) (models.ExportResult, error) {
	var r models.ExportResult

	if !gjson.ValidBytes(body) {
		return r, violation("body is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return r, violation("body is not an object")
	}

	var err error
	doc.ForEach(func(key, value gjson.Result) bool {
		want, known := resultFields[key.Str]
		if !known {
			err = violation("unexpected field %q", key.Str)
			return false
		}
		if value.Type == gjson.Null {
			return true
		}
		if !typeMatches(want, value.Type) {
			err = violation("field %q has type %s", key.Str, value.Type)
			return false
		}
		return true
	})
	if err != nil {
		return r, err
	}

	success := doc.Get("success")
	if !success.IsBool() {
		return r, violation("missing success flag")
	}

	r.Success = success.Bool()
	r.VideoURL = doc.Get("videoUrl").String()
	r.StoragePath = doc.Get("storagePath").String()
	r.MediaFileID = doc.Get("mediaFileId").String()
	r.Error = doc.Get("error").String()

	for key, dst := range map[string]*int64{"fileSize": &r.FileSize, "processingTimeMs": &r.ProcessingTimeMs} {
		v := doc.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Num < 0 || v.Num != float64(int64(v.Num)) {
			return r, violation("field %q must be a non-negative integer", key)
		}
		*dst = v.Int()
	}

	return r, Validate(r)
}

// Validate checks the semantic rules of a decoded result
func Validate(r models.ExportResult) error {
	if r.Success {
		if r.VideoURL == "" {
			return violation("successful result without videoUrl")
		}
		if r.Error != "" {
			return violation("successful result carries an error")
		}
		return nil
	}
	if r.Error == "" {
		return violation("failed result without error message")
	}
	return nil
}

func typeMatches(want, got gjson.Type) bool {
	if want == gjson.True {
		return got == gjson.True || got == gjson.False
	}
	return want == got
}
