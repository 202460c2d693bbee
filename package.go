// Package fence implements the fence_mold agent: it reads the fencing
// framework's options, performs one power action against a virtual machine
// managed by a MOLD management server and reports the result through stdout,
// stderr and the exit code.
package fence
