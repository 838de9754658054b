package bot

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/clic-epfl/clicbot/internal/storage"
	tg "github.com/clic-epfl/clicbot/internal/telegram"
	"github.com/clic-epfl/clicbot/internal/telegram/callbacks"
	"github.com/clic-epfl/clicbot/internal/telegram/commands"
	tghelpers "github.com/clic-epfl/clicbot/internal/telegram/helpers"
	"github.com/clic-epfl/clicbot/internal/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

func (a *App) registerCommands() {
	a.reg.RegisterCommand("/help", commands.Command{
		Handler:     a.cmdHelp,
		Description: "Affiche la liste des commandes supportées",
	})
	a.reg.RegisterCommand("/bureau", commands.Command{
		Handler:     a.cmdBureau,
		Description: "Crée un sondage pour savoir qui est au bureau",
		Tier:        commands.AuthorizedChat,
	})
	a.reg.RegisterCommand("/poll", commands.Command{
		Handler:     a.cmdPoll,
		Description: "Crée un quiz sur une citation d'un des membres du comité",
		Tier:        commands.AuthorizedChat,
		Aliases:     []string{"/quiz"},
	})
	a.reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.cmdStats,
		Description: "Affiche le nombre de quiz par membre du comité",
		Tier:        commands.AuthorizedChat,
	})
	a.reg.RegisterCommand("/carte", commands.Command{
		Handler:     a.cmdCarte,
		Description: "Suit la carte invité du bureau",
		Tier:        commands.AuthorizedChat,
	})
	a.reg.RegisterCommand("/authenticate", commands.Command{
		Handler:     a.cmdAuthenticate,
		Description: "Enregistre un admin via le token secret",
		Hidden:      true,
	})
	a.reg.RegisterCommand("/adminlist", commands.Command{
		Handler:     a.cmdAdminList,
		Description: "Liste les admins",
		Tier:        commands.AdminOnly,
	})
	a.reg.RegisterCommand("/adminremove", commands.Command{
		Handler:     a.cmdAdminRemove,
		Description: "Retire un admin",
		Tier:        commands.AdminOnly,
	})
	a.reg.RegisterCommand("/authorize", commands.Command{
		Handler:     a.cmdAuthorize,
		Description: "Autorise ce chat à utiliser une commande",
		Tier:        commands.AdminOnly,
	})
	a.reg.RegisterCommand("/unauthorize", commands.Command{
		Handler:     a.cmdUnauthorize,
		Description: "Retire à ce chat l'usage d'une commande",
		Tier:        commands.AdminOnly,
	})
	a.reg.RegisterCommand("/authorizations", commands.Command{
		Handler:     a.cmdAuthorizations,
		Description: "Liste les commandes autorisées pour ce chat",
		Tier:        commands.AdminOnly,
	})
}

func (a *App) cmdHelp(c tele.Context) error {
	var b strings.Builder
	b.WriteString("Les commandes suivantes sont supportées:\n")
	for _, cmd := range a.reg.ListCommands(true) {
		fmt.Fprintf(&b, "%s — %s\n", cmd.Text, cmd.Description)
	}
	return tghelpers.SendText(c, strings.TrimRight(b.String(), "\n"))
}

func (a *App) cmdBureau(c tele.Context) error {
	poll := &tele.Poll{
		Type:     tele.PollRegular,
		Question: "Qui est au bureau ?",
	}
	poll.AddOptions(
		"Je suis actuellement au bureau",
		"Je suis à proximité du bureau",
		"Je compte m'y rendre bientôt",
		"J'y suis pas",
		"Je suis à Satellite",
		"Je suis pas en Suisse",
	)
	return c.Send(poll)
}

func (a *App) cmdPoll(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.engine.StartQuiz(ctx, c.Chat().ID, tg.MessageRefOf(c))
}

func (a *App) cmdCarte(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.engine.StartCard(ctx, c.Chat().ID, tg.MessageRefOf(c))
}

func (a *App) cmdStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	members, err := a.roster.Members(ctx)
	if err != nil {
		return fmt.Errorf("fetch committee: %w", err)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].PollCount > members[j].PollCount })

	var b strings.Builder
	for _, m := range members {
		fmt.Fprintf(&b, "- %s (polls: %d)\n", m.Name, m.PollCount)
	}
	return tghelpers.SendText(c, strings.TrimRight(b.String(), "\n"))
}

func (a *App) cmdAuthenticate(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return tghelpers.SendText(c, "Usage: /authenticate <token> <nom>")
	}
	token, name := args[0], args[1]

	if subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.Admin.Token)) != 1 {
		return tghelpers.SendText(c, "Le token est incorrect")
	}

	ctx := tghelpers.BuildContext(c)
	identity := middleware.SenderIdentity(c)
	if err := a.access.AddAdmin(ctx, identity, name); err != nil {
		if errors.Is(err, storage.ErrDuplicateAdmin) {
			return tghelpers.SendText(c, "Cet utilisateur est déjà admin")
		}
		return fmt.Errorf("add admin: %w", err)
	}
	return tghelpers.SendText(c, "Authentification réussie !")
}

func (a *App) cmdAdminList(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	admins, err := a.access.Admins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	var b strings.Builder
	b.WriteString("Admin(s) actuel(s):")
	for _, admin := range admins {
		fmt.Fprintf(&b, "\n - %s", admin.Name)
	}
	return tghelpers.SendText(c, b.String())
}

func (a *App) cmdAdminRemove(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return tghelpers.SendText(c, "Usage: /adminremove <nom>")
	}
	name := args[0]

	ctx := tghelpers.BuildContext(c)
	removed, err := a.access.RemoveAdmin(ctx, name)
	if err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	if !removed {
		return tghelpers.SendText(c, fmt.Sprintf("%s n'est pas admin", name))
	}
	return tghelpers.SendText(c, fmt.Sprintf("%s a été retiré(e) des admins", name))
}

func (a *App) cmdAuthorize(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return tghelpers.SendText(c, "Usage: /authorize <commande>")
	}
	command := strings.TrimPrefix(args[0], "/")

	if !a.reg.KnownShortName(command) {
		return tghelpers.SendText(c, "Cette commande n'existe pas")
	}

	ctx := tghelpers.BuildContext(c)
	if err := a.access.Grant(ctx, c.Chat().ID, command); err != nil {
		return fmt.Errorf("grant %s: %w", command, err)
	}
	return tghelpers.SendText(c,
		fmt.Sprintf("Ce groupe peut désormais utiliser la commande /%s", command))
}

func (a *App) cmdUnauthorize(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return tghelpers.SendText(c, "Usage: /unauthorize <commande>")
	}
	command := strings.TrimPrefix(args[0], "/")

	ctx := tghelpers.BuildContext(c)
	if err := a.access.Revoke(ctx, c.Chat().ID, command); err != nil {
		return fmt.Errorf("revoke %s: %w", command, err)
	}
	return tghelpers.SendText(c,
		fmt.Sprintf("Ce groupe ne peut désormais plus utiliser la commande /%s", command))
}

func (a *App) cmdAuthorizations(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	granted, err := a.access.Authorizations(ctx, c.Chat().ID)
	if err != nil {
		return fmt.Errorf("list authorizations: %w", err)
	}

	if len(granted) == 0 {
		return tghelpers.SendText(c, "Ce groupe ne peut utiliser aucune commande")
	}
	var b strings.Builder
	b.WriteString("Ce groupe peut utiliser les commandes suivantes:")
	for _, cmd := range granted {
		fmt.Fprintf(&b, "\n - %s", cmd)
	}
	return tghelpers.SendText(c, b.String())
}

func (a *App) onQuizTarget(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.engine.ChooseTarget(ctx, c.Chat().ID, callbacks.CallbackPayload(c))
}

func (a *App) onCardAction(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return a.engine.HandleCardAction(ctx, c.Chat().ID, callbacks.CallbackPayload(c))
}
