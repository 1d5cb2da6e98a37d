package logger

import (
	"go.uber.org/zap"
)

// Init replaces zap's global logger. Production gets JSON output at info
// level; everything else gets the development console encoder.
func Init(environment string) error {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}
