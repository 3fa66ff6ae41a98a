package docknet

// Version specifies the docknet shim version.
const Version = "0.4.0"

// BuildDate is injected at build time with the -ldflags option.
var BuildDate = "unset"
