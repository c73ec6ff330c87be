/*
 * Copyright (c) 2024 Huawei Technologies Co., Ltd.
 * openFuyao is licensed under Mulan PSL v2.
 * You can use this software according to the terms and conditions of the Mulan PSL v2.
 * You may obtain a copy of Mulan PSL v2 at:
 *          http://license.coscl.org.cn/MulanPSL2
 * THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
 * EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
 * MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
 * See the Mulan PSL v2 for more details.
 */

/*
Package errors
contains the typed failure taxonomy for helm CLI invocations
*/
package errors

import (
	goErrors "errors"
	"regexp"
	"strings"
)

// CommandError carries the exit code and raw output streams of a failed helm invocation
type CommandError struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (e *CommandError) Error() string {
	return strings.TrimSpace(string(e.Stderr))
}

// ConnectionError helm could not reach the kubernetes api server
type ConnectionError struct {
	CommandError
}

// ChartNotFoundError the requested chart does not exist in any known repository
type ChartNotFoundError struct {
	CommandError
}

// ChartRenderError the chart templates failed to render
type ChartRenderError struct {
	CommandError
}

// ReleaseNotFoundError the named release does not exist
type ReleaseNotFoundError struct {
	CommandError
}

// ResourceAlreadyExistsError a rendered resource already exists in the cluster
type ResourceAlreadyExistsError struct {
	CommandError
}

// InvalidResourceError a rendered resource was rejected by the api server
type InvalidResourceError struct {
	CommandError
}

// CancelledError the helm process reported a canceled server-side context
type CancelledError struct {
	CommandError
}

var (
	chartNotFoundPattern = regexp.MustCompile(`chart "[^"]+" (version "[^"]+" )?not found`)
	connectionPattern    = regexp.MustCompile(`(read: operation timed out|connect: network is unreachable)`)
)

// classifyRules is evaluated top to bottom and the first match wins.
// 顺序敏感：etcdserver 报错有时会伴随 not found 信息，必须先判断
var classifyRules = []struct {
	match func(stderr string) bool
	wrap  func(base CommandError) error
}{
	{
		match: func(s string) bool { return strings.Contains(s, "context canceled") },
		wrap:  func(base CommandError) error { return &CancelledError{base} },
	},
	{
		match: func(s string) bool { return strings.Contains(s, "etcdserver") },
		wrap:  func(base CommandError) error { return &ConnectionError{base} },
	},
	{
		match: func(s string) bool { return strings.Contains(s, "release: not found") },
		wrap:  func(base CommandError) error { return &ReleaseNotFoundError{base} },
	},
	{
		match: func(s string) bool { return strings.Contains(s, "failed to render chart") },
		wrap:  func(base CommandError) error { return &ChartRenderError{base} },
	},
	{
		match: func(s string) bool { return strings.Contains(s, "execution error") },
		wrap:  func(base CommandError) error { return &ChartRenderError{base} },
	},
	{
		match: func(s string) bool {
			return strings.Contains(s, "rendered manifests contain a resource that already exists")
		},
		wrap: func(base CommandError) error { return &ResourceAlreadyExistsError{base} },
	},
	{
		match: func(s string) bool { return strings.Contains(s, "is invalid") },
		wrap:  func(base CommandError) error { return &InvalidResourceError{base} },
	},
	{
		match: func(s string) bool { return chartNotFoundPattern.MatchString(s) },
		wrap:  func(base CommandError) error { return &ChartNotFoundError{base} },
	},
	{
		match: func(s string) bool { return connectionPattern.MatchString(s) },
		wrap:  func(base CommandError) error { return &ConnectionError{base} },
	},
}

// Classify maps a nonzero helm exit to the matching typed error.
// Unrecognized failures come back as the plain *CommandError.
func Classify(exitCode int, stdout, stderr []byte) error {
	base := CommandError{
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
	}
	text := strings.ToLower(string(stderr))
	for _, rule := range classifyRules {
		if rule.match(text) {
			return rule.wrap(base)
		}
	}
	return &base
}

// IsReleaseNotFound reports whether err classifies as a missing release
func IsReleaseNotFound(err error) bool {
	var notFound *ReleaseNotFoundError
	return goErrors.As(err, &notFound)
}

// IsConnection reports whether err classifies as a kubernetes connection failure
func IsConnection(err error) bool {
	var connection *ConnectionError
	return goErrors.As(err, &connection)
}

// IsCancelled reports whether err classifies as a canceled helm invocation
func IsCancelled(err error) bool {
	var cancelled *CancelledError
	return goErrors.As(err, &cancelled)
}
