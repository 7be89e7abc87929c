package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"edulycee-client/internal/bootstrap"
	"edulycee-client/internal/config"
	"edulycee-client/internal/gateway"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/internal/tracer"
	"edulycee-client/pkg/events"

	"github.com/fatih/color"
)

func main() {
	shutdownTracer := tracer.InitTracer("edulycee-client")
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	container := bootstrap.NewContainer(cfg, bootstrap.Options{
		Logger: logger.NewIsolatedLogger(cfg.App.LogFilePath),
		Navigator: gateway.NavigatorFunc(func() {
			color.Red("\nVotre session a expiré. Connectez-vous à nouveau (login <email> <mot de passe>).")
		}),
	})
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go watch(ctx, container.Bus)

	cli := &cli{c: container, documents: make(map[int64]model.Document)}

	identity := container.AuthService.Hydrate(ctx)
	color.Cyan("Edulycée, session d'étude (%s)", cfg.Api.BaseURL)
	if identity.IsAuthenticated() {
		color.Green("Connecté en tant que %s", identity.Email)
	} else {
		color.Yellow("Non connecté. Tapez 'help' pour la liste des commandes.")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt(container))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}
		cli.dispatch(ctx, line)
	}
}

func prompt(c *bootstrap.Container) string {
	if doc, ok := c.Sessions.Document(); ok {
		return fmt.Sprintf("[%d %s | %s] > ", doc.Id, doc.Title, c.Quiz.State())
	}
	return "> "
}

// watch prints the session events a user should notice without asking.
func watch(ctx context.Context, bus *events.Bus) {
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		return
	}
	for evt := range ch {
		data := evt.Payload()
		switch evt.EventType() {
		case events.AuthExpired:
			color.Red("\n[auth] jeton refusé par le serveur")
		case events.ChatFailed:
			color.Red("\n[chat] échec: %v", data["error"])
		case events.QuizState:
			color.Magenta("\n[quiz] %v -> %v", data["from"], data["to"])
		}
	}
}
