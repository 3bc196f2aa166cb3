package main

import (
	"context"
	"fmt"

	"remindly/config"
	"remindly/reminder"
	"remindly/repository"
	"remindly/repository/inmemory"
	"remindly/services"
	"remindly/usecase"
	"remindly/utils"

	"go.uber.org/zap"
)

// app holds the stores and background workers shared by every command.
type app struct {
	cfg        *config.AppConfig
	tasks      usecase.TaskStore
	users      usecase.UserStore
	jobs       reminder.JobStore
	mailer     usecase.Mailer
	dispatcher *reminder.Dispatcher
	useMongo   bool
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	a := &app{cfg: cfg, useMongo: cfg.RepositoryType == config.RepositoryMongo}

	if a.useMongo {
		client, err := utils.ConnectMongo(ctx, cfg.Database.ClientOptions())
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Database.DatabaseName)
		a.tasks = repository.NewTasksRepo(db, cfg.Database.TasksCollection)
		a.users = repository.NewUsersRepo(db, cfg.Database.UsersCollection)
		a.jobs = repository.NewReminderJobsRepo(db, cfg.Database.ReminderJobsCollection)
	} else {
		utils.Warn("using in-memory storage, data is lost on restart")
		a.tasks = inmemory.NewTaskStorage()
		a.users = inmemory.NewUserStorage()
		a.jobs = inmemory.NewJobStorage()
	}

	if cfg.MailEnabled() {
		a.mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		utils.Warn("SMTP_HOST not set, emails will not be delivered")
		a.mailer = services.DisabledMailer{}
	}

	a.dispatcher = reminder.NewDispatcher(a.tasks, a.jobs, a.mailer, reminder.Config{
		Horizon:   cfg.ReminderHorizon,
		Grace:     cfg.ReminderGrace,
		SweepSpec: cfg.ReminderSweepSpec,
	})

	utils.Info("app initialised",
		zap.String("repository", cfg.RepositoryType),
		zap.String("timezone", cfg.Location.String()))
	return a, nil
}

func (a *app) collections() repository.Collections {
	return repository.Collections{
		Tasks:        a.cfg.Database.TasksCollection,
		Users:        a.cfg.Database.UsersCollection,
		ReminderJobs: a.cfg.Database.ReminderJobsCollection,
	}
}

func (a *app) close(ctx context.Context) {
	a.dispatcher.Stop()
	if a.useMongo {
		utils.DisconnectMongo(ctx)
	}
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
