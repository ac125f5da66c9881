package vm

// Option is a configuration function for a Machine.
type Option func(*Machine)

// WithObserver sets an observer that receives a StepEvent for every
// executed instruction. Observer methods are called synchronously, so a
// search should leave this unset.
func WithObserver(observer Observer) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}
