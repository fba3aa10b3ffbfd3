package commands

import (
	"regexp"
	"strings"

	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

var shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)
var requiredFlagRe = regexp.MustCompile(`required flag\(s\) "([\w-]+)" not set`)

// TransformCobraError turns cobra's argument and flag errors into usage errors.
func TransformCobraError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	if flag, ok := strings.CutPrefix(msg, "flag needs an argument: "); ok {
		return output.ErrUsage(flag + " requires a value")
	}

	if flag, ok := strings.CutPrefix(msg, "unknown flag: "); ok {
		return output.ErrUsage("Unknown option: " + flag)
	}

	if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
		return output.ErrUsage("Unknown option: " + matches[1])
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run dcadmin --help for the list of commands")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	// "accepts at most 1 arg(s), received 2", "accepts 1 arg(s), received 0"
	if strings.Contains(msg, "arg(s), received") {
		return output.ErrUsage(msg)
	}

	if matches := requiredFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
		return output.ErrUsage("--" + matches[1] + " required")
	}

	return err
}
