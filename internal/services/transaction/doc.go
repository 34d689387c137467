/*
Package transaction is the ledger's transaction engine.

It moves money between accounts through four operations:

  - Deposit credits a user's account from outside the ledger.
  - Withdraw debits a user's account to outside the ledger.
  - Transfer moves an amount between two users in one currency.
  - Convert moves value between two of one user's accounts at the
    static exchange rate.

Every operation validates its input and checks funds before it opens a
unit of work. Inside the unit the balance changes and the ledger rows
commit or roll back together. Units that fail on a reference collision
or a transient store error are retried with fresh references:

	svc := transaction.NewService(transaction.Deps{
	    Store:      store,
	    Rates:      table,
	    References: reference.NewGenerator(),
	    Pins:       pin.NewAuthorizer(users, pin.DefaultCost),
	}, transaction.DefaultConfig())

	res, err := svc.Deposit(ctx, user, transaction.FundsRequest{
	    Amount:   &amount,
	    Currency: "USD",
	    Pin:      "1234",
	})

Errors returned to callers are *errors.DomainError values whose Kind
selects the HTTP status.
*/
package transaction
