package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"goodCredAPI/internal/loan"
	"goodCredAPI/internal/notification"
)

// Only the two methods the trigger needs, not the whole service types.
type DueLoanSource interface {
	LoansDueWithin(ctx context.Context, window time.Duration) []*loan.Loan
}

type NotificationCreator interface {
	Notify(ctx context.Context, req *notification.CreateNotificationRequest)
}

// RunLoanDueReminders scans for loans due within 24h and notifies each
// borrower once per loan. Reminder only: overdue loans keep their state
// until the borrower repays. Blocks until ctx is cancelled; run it in a
// goroutine from main.
func RunLoanDueReminders(ctx context.Context, loans DueLoanSource, notifier NotificationCreator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due := loans.LoansDueWithin(ctx, 24*time.Hour)
			for _, l := range due {
				log.Printf("Loan reminder: loan #%d for %s due %s", l.LoanID, l.Borrower, l.DueDate.Format(time.RFC3339))
				notifier.Notify(ctx, &notification.CreateNotificationRequest{
					Address: l.Borrower,
					Type:    notification.TypeLoanDueSoon,
					Title:   "Loan due soon",
					Message: fmt.Sprintf("Loan #%d: %d G$ is due by %s.", l.LoanID, l.AmountDue, l.DueDate.Format("2006-01-02 15:04")),
					Data:    map[string]any{"loan_id": l.LoanID, "amount_due": l.AmountDue},
				})
			}
		}
	}
}
