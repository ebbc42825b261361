package tlocal

import "github.com/FlovinTue/gdul/internal/faults"

func panicDestroyed() {
	faults.Violate("tlocal: access after destroy", "Member was Destroyed before this Get/Set")
}
