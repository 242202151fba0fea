package core

import "github.com/onsi/ginkgo/v2"

// The core package declares its own Report type, which collides with
// ginkgo.Report under a dot-import, so the DSL functions used by the
// specs are bound here instead.
var (
	Describe       = ginkgo.Describe
	When           = ginkgo.When
	It             = ginkgo.It
	BeforeEach     = ginkgo.BeforeEach
	JustBeforeEach = ginkgo.JustBeforeEach
	Fail           = ginkgo.Fail
	RunSpecs       = ginkgo.RunSpecs
)
