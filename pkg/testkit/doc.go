// Package testkit provides in-memory fakes of the account store, billing provider and mailer
// for component tests.
//
// Every fake is safe for concurrent use, counts calls by method name, and can be told to fail
// a method or to run a hook when a method is entered:
//
//	store := testkit.NewStore()
//	owner, sub := store.SeedOwner("owner@example.com", "sub_1")
//	store.Fail("FetchTeamInvites", errors.New("connection reset"))
//	store.OnCall("FetchEmailSettings", func() { <-release })
package testkit
