package main

import (
	"log/slog"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/dto"
	conversationapp "roomchat/internal/app/handlers/conversations"
	meapp "roomchat/internal/app/handlers/me"
	roomapp "roomchat/internal/app/handlers/rooms"
	userapp "roomchat/internal/app/handlers/users"
	"roomchat/internal/app/middleware"
	"roomchat/internal/app/outbox"
	"roomchat/internal/app/queries"
	authsvc "roomchat/internal/app/services/auth"
	"roomchat/internal/domain/conversation"
	"roomchat/internal/infra/config"
	ginserver "roomchat/internal/infra/http/gin"
	"roomchat/internal/infra/obs"
	"roomchat/internal/infra/security"
)

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
	queries  queries.Bus
}

func buildApplication(cfg config.Config, logger *slog.Logger, infra *infrastructure) application {
	encoder := outbox.JSONEventEncoder{}

	authService := &authsvc.Service{
		Users:      infra.users,
		Sessions:   infra.sessions,
		Passwords:  security.BcryptHasher{Cost: cfg.BcryptCost},
		Tokens:     security.RandomTokenGenerator{Size: 32},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.Register[roomapp.OpenRoomCommand, dto.Room](commandBus, &roomapp.OpenRoomHandler{
		Outbox:  infra.outbox,
		Encoder: encoder,
		Logger:  logger,
	})
	commands.Register[roomapp.PostMessageCommand, dto.ChatMessage](commandBus, &roomapp.PostMessageHandler{
		Outbox:   infra.outbox,
		Encoder:  encoder,
		Logger:   logger,
		OnPosted: obs.ObserveMessagePosted,
	})
	commands.Register[meapp.UploadAvatarCommand, dto.UserProfile](commandBus, &meapp.UploadAvatarHandler{
		Uploader: infra.uploader,
		Logger:   logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.Register[conversationapp.ListSummariesQuery, []dto.ConversationSummary](queryBus, &conversationapp.ListSummariesHandler{
		UoWFactory: infra.uowFactory,
		Builder: conversation.Builder{
			Location: cfg.Location(),
			Logger:   logger,
			OnSkip:   obs.ObserveSkip,
		},
		OnBuilt: obs.ObserveSummaries,
	})
	queries.Register[userapp.SearchUsersQuery, []dto.UserProfile](queryBus, &userapp.SearchUsersHandler{UoWFactory: infra.uowFactory})
	queries.Register[userapp.GetProfileQuery, dto.UserProfile](queryBus, &userapp.GetProfileHandler{UoWFactory: infra.uowFactory})
	queries.Register[roomapp.ListMessagesQuery, dto.ChatMessageList](queryBus, &roomapp.ListMessagesHandler{UoWFactory: infra.uowFactory})

	logger.Debug("buses ready", "commands", commandBus.Keys(), "queries", queryBus.Keys())

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger, obs.ObserveBus),
		middleware.Authorization(middleware.RequireRequester{}),
		middleware.Validation(middleware.MessageValidator{}),
		middleware.Idempotency(infra.idempotency, nil),
		middleware.Transaction(infra.uowFactory, nil),
		middleware.OutboxFlush(infra.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger, obs.ObserveBus),
		middleware.QueryAuthorization(middleware.RequireRequester{}),
		middleware.QueryValidation(middleware.MessageValidator{}),
	)

	return application{
		handlers: ginserver.Handlers{
			Auth: ginserver.AuthHandler{
				Service:   authService,
				Queries:   queryBusWithMiddleware,
				Logger:    logger,
				OnAttempt: obs.ObserveAuth,
			},
			Conversations: ginserver.ConversationHandler{
				Queries: queryBusWithMiddleware,
				Logger:  logger,
			},
			Users: ginserver.UserHandler{
				Queries:  queryBusWithMiddleware,
				Commands: commandBusWithMiddleware,
				Logger:   logger,
			},
			Rooms: ginserver.RoomHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
				Logger:   logger,
			},
			AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
		},
		commands: commandBusWithMiddleware,
		queries:  queryBusWithMiddleware,
	}
}
