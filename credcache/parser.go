package credcache

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	v4AccessKeyRegexp   = regexp.MustCompile("Credential=([a-zA-Z0-9]+)")
	v4AccessKeySplitter = "="
	v2AccessKeyRegexp   = regexp.MustCompile("AWS ([a-zA-Z0-9]+)")
	v2AccessKeySplitter = " "

	// ErrNoAccessKey is returned when no known Authorization format matches.
	ErrNoAccessKey = errors.New("no access key found in Authorization header")
)

type accessKeyPattern struct {
	pattern  *regexp.Regexp
	splitter string
}

func (a *accessKeyPattern) match(value string) (string, error) {
	if found := a.pattern.Find([]byte(value)); found == nil {
		return "", fmt.Errorf("could not find access key for pattern")
	} else {
		return string(found), nil
	}
}

func (a *accessKeyPattern) get(value string) (string, error) {
	if found, err := a.match(value); err == nil {
		return strings.Split(found, a.splitter)[1], nil
	}
	return "", ErrNoAccessKey
}

// AccessKeyParser pulls the access key ID out of an Authorization header,
// understanding both the v4 Credential= form and the legacy v2 "AWS key:sig"
// form.
type AccessKeyParser struct {
	formats []accessKeyPattern
}

func NewAccessKeyParser() *AccessKeyParser {
	return &AccessKeyParser{
		formats: []accessKeyPattern{
			{
				v4AccessKeyRegexp, v4AccessKeySplitter},
			{
				v2AccessKeyRegexp, v2AccessKeySplitter,
			},
		},
	}
}

func (a *AccessKeyParser) FindAccessKey(authHeader string) (string, error) {
	for _, format := range a.formats {
		if found, err := format.get(authHeader); err == nil {
			return found, nil
		}
	}
	return "", ErrNoAccessKey
}
