package ports

// ProgramResolver resolves a program name to an absolute executable path.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type ProgramResolver interface {
	// ResolveProgram returns the absolute path of the executable. Names
	// that are already absolute are verified, names containing a path
	// separator resolve against the working directory, and bare names are
	// searched on PATH.
	ResolveProgram(name string) (string, error)
}
