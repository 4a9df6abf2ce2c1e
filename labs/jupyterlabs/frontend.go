package jupyterlabs

import "github.com/sirupsen/logrus"

// Frontend executes commands in the JupyterLab front-end. Execute only
// submits the command; it does not wait for it to complete.
type Frontend interface {
	Execute(command string) error
}

// FrontendFunc adapts a function to Frontend.
type FrontendFunc func(command string) error

func (f FrontendFunc) Execute(command string) error {
	return f(command)
}

// NopFrontend is used when no command bridge is attached to the kernel.
// The notebook is committed as last saved.
type NopFrontend struct{}

func (NopFrontend) Execute(command string) error {
	logrus.Debugf("no front-end bridge attached, skipping %s", command)
	return nil
}

// RequestSave asks the front-end to persist the current notebook without
// waiting for it. A commit that follows may still see the previous content.
func RequestSave(fe Frontend) {
	if fe == nil {
		return
	}
	go func() {
		if err := fe.Execute(SaveCommand); err != nil {
			logrus.Warnf("failed to request notebook save: %v", err)
		}
	}()
}
