package integrations_test

import (
	"fmt"

	"github.com/pkgfoundry/wheelscan/pkg/integrations"
)

func ExampleNormalizePkgName() {
	// Project names are normalized to lowercase with hyphens
	fmt.Println(integrations.NormalizePkgName("FastAPI"))
	fmt.Println(integrations.NormalizePkgName("my_package"))
	fmt.Println(integrations.NormalizePkgName("Zope.Interface"))
	fmt.Println(integrations.NormalizePkgName("  Spaces  "))
	// Output:
	// fastapi
	// my-package
	// zope-interface
	// spaces
}

func Example_errors() {
	// Standard errors for index operations
	fmt.Println("ErrNotFound:", integrations.ErrNotFound)
	fmt.Println("ErrNetwork:", integrations.ErrNetwork)
	// Output:
	// ErrNotFound: resource not found
	// ErrNetwork: network error
}
