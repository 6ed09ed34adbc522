// Package store tracks planned workflow runs in a SQLite database via GORM.
//
//	s, err := store.Open(ctx, cfg.Store, log)
//	defer s.Close()
//
//	err = s.CreateRun(ctx, &store.WorkflowRun{RunID: id, Name: name})
//	run, err := s.GetRun(ctx, id)
package store
