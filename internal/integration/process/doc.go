// Package process runs analyzer child processes.
//
// A Supervisor starts commands described by a Spec and tracks them until
// they exit. Output goes wherever the Spec points it, typically files the
// caller reads back after the exit:
//
//	sup := process.NewSupervisor(process.WithMaxProcesses(1))
//	defer sup.Shutdown(5 * time.Second)
//
//	p, err := sup.Start(process.Spec{
//	    Name:   "grammalecte",
//	    Argv:   []string{"python3", "cli.py", "-j", "-f", input},
//	    Stdout: out,
//	    Stderr: errs,
//	})
//	...
//	if p.Exited() {
//	    fmt.Println(p.ExitCode())
//	}
//
// A process leaves the supervisor before its Done channel closes, so a
// caller that saw Done may start the next one at once under a limit of
// one.
package process
