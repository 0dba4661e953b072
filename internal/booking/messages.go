package booking

import (
	"fmt"
	"strings"

	"ms-booking/internal/loyalty"
	"ms-booking/internal/models"
)

const showTimeLayout = "Mon 02 Jan 2006 15:04 MST"

func bookingNotice(t models.NotificationType, b *models.Booking, subject, content string) *models.Notification {
	userID := b.UserID
	bookingID := b.ID
	return &models.Notification{
		UserID:    &userID,
		Type:      t,
		Subject:   subject,
		Content:   content,
		RelatedID: &bookingID,
	}
}

func showLine(show *models.Show) string {
	if show == nil {
		return ""
	}
	return fmt.Sprintf(" for the show on %s", show.StartTime.Format(showTimeLayout))
}

func confirmationNotice(b *models.Booking, show *models.Show) *models.Notification {
	return bookingNotice(models.NotifyBookingConfirmation, b,
		fmt.Sprintf("Booking %s confirmed", b.BookingNumber),
		fmt.Sprintf("Your booking %s%s is confirmed. Seats: %s. Amount paid: %s.",
			b.BookingNumber, showLine(show), strings.Join(b.SeatNumbers(), ", "), b.NetAmount().StringFixed(2)))
}

func cancellationNotice(b *models.Booking, show *models.Show) *models.Notification {
	content := fmt.Sprintf("Your booking %s%s has been cancelled.", b.BookingNumber, showLine(show))
	if b.PaymentStatus == models.PaymentRefunded {
		content += " Your payment will be refunded."
	}
	return bookingNotice(models.NotifyBookingCancellation, b, fmt.Sprintf("Booking %s cancelled", b.BookingNumber), content)
}

func expiryNotice(b *models.Booking, show *models.Show) *models.Notification {
	return bookingNotice(models.NotifyBookingExpired, b,
		fmt.Sprintf("Reservation %s expired", b.BookingNumber),
		fmt.Sprintf("Your reservation %s%s was not paid in time and the seats were released.", b.BookingNumber, showLine(show)))
}

func reminderNotice(b *models.Booking, show *models.Show) *models.Notification {
	return bookingNotice(models.NotifyShowReminder, b,
		"Your show is coming up",
		fmt.Sprintf("Reminder: booking %s%s. Seats: %s.", b.BookingNumber, showLine(show), strings.Join(b.SeatNumbers(), ", ")))
}

func tierUpgradeNotice(userID int64, spend *loyalty.SpendResult) *models.Notification {
	tier := spend.Profile.EffectiveTier()
	return &models.Notification{
		UserID:  &userID,
		Type:    models.NotifyTierUpgrade,
		Subject: fmt.Sprintf("Welcome to %s", tier),
		Content: fmt.Sprintf("You moved from %s to %s. You now have %d free tickets this month.",
			spend.PreviousTier, tier, spend.Profile.FreeTicketsRemaining),
	}
}
