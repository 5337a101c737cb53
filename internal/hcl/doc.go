// Package hcl implements config.Loader for HCL client definitions.
//
// A definition file holds exactly one client block:
//
//	client {
//	  uri = env.IOCLIENT_URI
//	  options = {
//	    autoConnect          = true
//	    reconnectionDelayMax = 10000
//	  }
//	}
//
// The env variable exposes the process environment at load time.
package hcl
