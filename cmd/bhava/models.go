package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ayusman/bhava/internal/store"
)

func addModel(s *store.Store, out io.Writer, name, version, path string, activate bool) error {
	m, err := s.Models().Register(name, version, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered %s (%s)\n", m.Name, m.Checksum[:12])
	if activate {
		return activateModel(s, out, m.Name)
	}
	return nil
}

func listModels(s *store.Store, out io.Writer) error {
	models, err := s.Models().List()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "No models registered.")
		return nil
	}

	active := ""
	if m, err := s.ActiveModel(); err == nil {
		active = m.Name
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tVERSION\tCREATED\tPATH")
	for _, m := range models {
		mark := ""
		if m.Name == active {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, m.Name, m.Version, m.CreatedAt.Format(time.DateTime), m.Path)
	}
	return tw.Flush()
}

func activateModel(s *store.Store, out io.Writer, name string) error {
	if err := s.SetActiveModel(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Active model is now %s; restart the service to load it.\n", name)
	return nil
}

func removeModel(s *store.Store, out io.Writer, name string) error {
	if err := s.Models().Delete(name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s\n", name)
	return nil
}
