// Package translate formats user-facing messages for the active locale.
//
// Message keys are en-US fmt formats. The printer is chosen from the
// system locales at startup, and may be replaced with Use.
package translate

import (
	"errors"
	"log"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DEFAULT_LOCALE is used when no system locale can be determined.
const DEFAULT_LOCALE = "en-US"

var printer atomic.Pointer[message.Printer]

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("sicxe: locale: %v", err)
	}

	Use(locales...)
}

// Use selects the best match among the given locales, falling back to
// DEFAULT_LOCALE. It returns the selected language tag.
func Use(locales ...string) language.Tag {
	if len(locales) == 0 {
		locales = []string{DEFAULT_LOCALE}
	}

	tag := message.MatchLanguage(locales...)
	printer.Store(message.NewPrinter(tag))

	return tag
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Load().Sprintf(key, args...)
}

// Error creates a sentinel error from an en-US message key.
func Error(key message.Reference, args ...any) error {
	return errors.New(From(key, args...))
}
