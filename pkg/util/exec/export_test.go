package exec

func SetLookPath(f func(string) (string, error)) func() {
	orig := lookPath
	lookPath = f
	return func() { lookPath = orig }
}
