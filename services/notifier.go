package services

import (
	"context"
	"fmt"

	"wardrobeapi/config"
	"wardrobeapi/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Notifier interface {
	Notify(ctx context.Context, userID uint, title string, message string, customData map[string]string)
}

// FirebaseNotifier pushes to every active token of the user through FCM.
type FirebaseNotifier struct {
	App *firebase.App
	DB  *gorm.DB
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{})
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

func (n *FirebaseNotifier) Notify(ctx context.Context, userID uint, title string, message string, customData map[string]string) {
	if n == nil || n.App == nil {
		return
	}
	var user models.UserAccount
	if err := n.DB.Select("id", "receive_notifications").Take(&user, userID).Error; err != nil || !user.ReceiveNotifications {
		return
	}
	client, err := n.App.Messaging(ctx)
	if err != nil {
		config.Logger.Warn("abort push, messaging client failed", zap.String("title", title), zap.Error(err))
		return
	}
	var tokens []models.UserPushToken
	if err := n.DB.Where("user_account_id = ? and active = ?", userID, true).Find(&tokens).Error; err != nil {
		config.Logger.Error("load push tokens failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	var iosCustomData map[string]interface{}
	if customData != nil {
		iosCustomData = stringMapToInterfaceMap(customData)
	}
	messages := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, &messaging.Message{
			Notification: &messaging.Notification{
				Title: title,
				Body:  message,
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						ContentAvailable: true,
						Alert: &messaging.ApsAlert{
							Title: title,
							Body:  message,
						},
						Sound: "default",
					},
					CustomData: iosCustomData,
				},
			},
			Android: &messaging.AndroidConfig{
				Notification: &messaging.AndroidNotification{
					Priority:  messaging.PriorityMax,
					ChannelID: "wardrobe-high-priority",
				},
				Data: customData,
			},
			Data:  customData,
			Token: token.Token,
		})
	}

	br, err := client.SendEach(ctx, messages)
	if err != nil {
		config.Logger.Error("push send failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	config.Logger.Info(fmt.Sprintf("[User %v] push sent", userID),
		zap.Int("success", br.SuccessCount), zap.Int("failure", br.FailureCount))
}
