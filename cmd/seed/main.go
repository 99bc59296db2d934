package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/app"
	"github.com/ShashankAtmakur/survey-management-system/internal/config"
	"github.com/ShashankAtmakur/survey-management-system/internal/logger"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/repository"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
)

func question(text, typ string, options ...string) model.QuestionInput {
	return model.QuestionInput{Text: &text, Type: &typ, Options: options}
}

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	responses := flag.Int("responses", 20, "number of sample responses to submit")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := app.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal("seed needs MongoDB", zap.Error(err))
	}
	defer db.Client().Disconnect(context.Background())

	surveyRepo := repository.NewSurveyRepo(db)
	responseRepo := repository.NewResponseRepo(db)
	surveySvc := service.NewSurveyService(surveyRepo, responseRepo, log)
	responseSvc := service.NewResponseService(surveyRepo, responseRepo, log)

	title := "Smartphone Launch Feedback"
	description := "Understand user perception, satisfaction, and improvement areas for the new device."
	ownerID := service.OwnerID(cfg.Auth.OwnerUsername)

	survey, err := surveySvc.Create(ctx, ownerID, &model.SurveyInput{
		Title:       &title,
		Description: &description,
		Questions: []model.QuestionInput{
			question("How satisfied are you with this smartphone overall?", "rating"),
			question("Which model did you purchase?", "multiple_choice", "Standard Model", "Pro / Plus Model", "Ultra / Max Model"),
			question("Which feature do you find the most impressive?", "text"),
			question("Would you recommend it to a friend?", "yes_no"),
			question("How many hours does the battery last for you?", "number"),
			question("What is one thing you would improve?", "text"),
		},
	})
	if err != nil {
		log.Fatal("create survey", zap.Error(err))
	}

	features := []string{"The display, colors are great", "Battery life", "Camera, especially at night", "Speed", "Design"}
	improvements := []string{"Price", "Heavier than expected", "More storage", "Faster charging", "Nothing"}
	for i := 0; i < *responses; i++ {
		answers := model.Answers{
			survey.Questions[0].Text: model.AnswerValue(strconv.Itoa(1 + rand.IntN(5))),
			survey.Questions[1].Text: model.AnswerValue(survey.Questions[1].Options[rand.IntN(len(survey.Questions[1].Options))]),
			survey.Questions[2].Text: model.AnswerValue(features[rand.IntN(len(features))]),
			survey.Questions[3].Text: model.AnswerValue([]string{"Yes", "No"}[rand.IntN(2)]),
			survey.Questions[4].Text: model.AnswerValue(strconv.Itoa(8 + rand.IntN(16))),
			survey.Questions[5].Text: model.AnswerValue(improvements[rand.IntN(len(improvements))]),
		}
		ip := fmt.Sprintf("10.0.0.%d", 1+i%250)
		if _, err := responseSvc.Submit(ctx, survey.ID, answers, ip); err != nil {
			log.Fatal("submit sample response", zap.Error(err))
		}
	}

	fmt.Printf("Created survey %q (%s) for owner %s with %d responses\n", survey.Title, survey.ID, ownerID, *responses)
}
