// Package invites manages pending team invitations.
//
// An invite occupies a seat from creation until it is accepted or revoked, so creating one
// requires a free seat on the inviter's subscription. Invitation and acceptance emails are
// sent as detached tasks whose outcome never reaches the caller.
package invites
