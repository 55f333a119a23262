package mail

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/teamseats/pkg/accounts"
)

// Kind names a notification for logging and metrics.
type Kind string

const (
	KindTeamInvite          Kind = "team_invite"
	KindInviteAccepted      Kind = "invite_accepted"
	KindTeammateRemoved     Kind = "teammate_removed"
	KindTeammateRemovedNote Kind = "teammate_removed_owner"
)

// Message is a rendered notification.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Content string
}

// TeamInviteMessage invites invite.Email to join inviter's team.
func TeamInviteMessage(invite *accounts.TeamInvite, inviter *accounts.User, appURL string) Message {
	link := fmt.Sprintf("%s/invites/%s/accept", strings.TrimRight(appURL, "/"), invite.ID)
	return Message{
		Kind:    KindTeamInvite,
		To:      invite.Email,
		Subject: fmt.Sprintf("%s invited you to join their team", inviter.DisplayName()),
		Content: fmt.Sprintf("%s has invited you to join their team subscription.\n\nAccept the invitation: %s\n", inviter.DisplayName(), link),
	}
}

// InviteAcceptedMessage tells the inviter that invitee joined.
func InviteAcceptedMessage(inviter, invitee *accounts.User) Message {
	return Message{
		Kind:    KindInviteAccepted,
		To:      inviter.Email,
		Subject: fmt.Sprintf("%s joined your team", invitee.DisplayName()),
		Content: fmt.Sprintf("%s (%s) accepted your invitation and now has access through your subscription.\n", invitee.DisplayName(), invitee.Email),
	}
}

// TeammateRemovedMessage tells the teammate they were removed from owner's team.
func TeammateRemovedMessage(owner, teammate *accounts.User) Message {
	return Message{
		Kind:    KindTeammateRemoved,
		To:      teammate.Email,
		Subject: "You have been removed from a team",
		Content: fmt.Sprintf("%s removed you from their team subscription. You no longer have access through it.\n", owner.DisplayName()),
	}
}

// TeammateRemovedNoticeMessage confirms the removal to the owner.
func TeammateRemovedNoticeMessage(owner, teammate *accounts.User) Message {
	return Message{
		Kind:    KindTeammateRemovedNote,
		To:      owner.Email,
		Subject: fmt.Sprintf("%s was removed from your team", teammate.DisplayName()),
		Content: fmt.Sprintf("%s (%s) no longer occupies a seat on your subscription.\n", teammate.DisplayName(), teammate.Email),
	}
}
