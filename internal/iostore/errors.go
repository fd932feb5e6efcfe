package iostore

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/pkg/errcode"
)

// PutError is returned when a file cannot be stored.
func PutError(key string, err error) error {
	msg := "Cannot store file <em>%s</em>"

	return &gn.Error{
		Code: errcode.StorageError,
		Msg:  msg,
		Vars: []any{key},
		Err:  fmt.Errorf("put %s: %w", key, err),
	}
}

// DeleteError is returned when a stored file cannot be removed.
func DeleteError(key string, err error) error {
	msg := "Cannot delete stored file <em>%s</em>"

	return &gn.Error{
		Code: errcode.StorageError,
		Msg:  msg,
		Vars: []any{key},
		Err:  fmt.Errorf("delete %s: %w", key, err),
	}
}

// ClientError is returned when S3 settings cannot be loaded.
func ClientError(region string, err error) error {
	msg := `Cannot configure S3 client for region <em>%s</em>

<em>How to fix:</em>
  Check AWS credentials in the environment or ~/.aws/credentials`

	return &gn.Error{
		Code: errcode.StorageError,
		Msg:  msg,
		Vars: []any{region},
		Err:  fmt.Errorf("load aws config: %w", err),
	}
}
