// Package minify wraps the minifiers the tasks share: esbuild for scripts
// and prefixed stylesheets, tdewolff for plain CSS bundles and SVG.
package minify

import (
	"errors"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mediaCSS = "text/css"
	mediaSVG = "image/svg+xml"
)

var m = newMinifier()

func newMinifier() *minify.M {
	mm := minify.New()
	mm.AddFunc(mediaCSS, css.Minify)
	mm.AddFunc(mediaSVG, svg.Minify)
	return mm
}

// JS minifies a script. name is only used in error locations.
func JS(name string, src []byte) ([]byte, error) {
	result := api.Transform(string(src), api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        name,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	return result.Code, nil
}

// PrefixCSS adds the vendor prefixes the engines need and minifies src.
func PrefixCSS(name string, src []byte, engines []api.Engine) ([]byte, error) {
	result := api.Transform(string(src), api.TransformOptions{
		Loader:            api.LoaderCSS,
		Sourcefile:        name,
		Engines:           engines,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	return result.Code, nil
}

// CSS minifies a stylesheet without prefixing.
func CSS(src []byte) ([]byte, error) {
	return m.Bytes(mediaCSS, src)
}

// SVG minifies an SVG document, including inline styles.
func SVG(src []byte) ([]byte, error) {
	return m.Bytes(mediaSVG, src)
}

// messagesError flattens esbuild messages into one error, keeping locations.
func messagesError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location != nil {
			errs = append(errs, fmt.Errorf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		errs = append(errs, errors.New(msg.Text))
	}
	return errors.Join(errs...)
}
