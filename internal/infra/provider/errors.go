package provider

import "errors"

var ErrEmptyResponse = errors.New("model returned an empty response")
