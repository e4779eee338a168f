// Command surveyform runs the public questionnaire in a terminal: it loads
// the first active survey, asks one question at a time, and prints the
// response token once submitted.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chedi-ouerghi/bigscreen/client"
	"github.com/chedi-ouerghi/bigscreen/formflow"
	"github.com/chedi-ouerghi/bigscreen/log"
	"github.com/chedi-ouerghi/bigscreen/model"
)

func main() {
	var apiURL string
	flag.StringVar(&apiURL, "api", "http://localhost:8000", "base URL of the survey API")
	flag.Parse()

	ctx := context.Background()
	api := client.New(apiURL)

	surveys, err := api.ActiveSurveys(ctx)
	if err != nil {
		log.Fatal("surveyform.surveys:", err)
	}
	if len(surveys) == 0 {
		fmt.Println("No survey is open right now.")
		return
	}
	survey := surveys[0]

	questions, err := api.Questions(ctx, survey.ID)
	if err != nil {
		log.Fatal("surveyform.questions:", err)
	}

	flow := formflow.New(api)
	if err := flow.Load(survey, questions); err != nil {
		log.Fatal("surveyform.load:", err)
	}

	fmt.Printf("%s\n%s\n\n", survey.Title, survey.Description)
	fmt.Println(`Answer each question. ":p" goes back, ":q" quits.`)

	in := bufio.NewScanner(os.Stdin)
	for flow.State() == formflow.InProgress {
		q := flow.Question()
		printQuestion(q, flow.Index()+1, flow.Count())
		if v := flow.Value(); v != "" {
			fmt.Printf("  (current answer: %s)\n", v)
		}

		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())

		switch line {
		case ":q":
			return
		case ":p":
			flow.Prev()
			continue
		}
		if line != "" {
			flow.Capture(line)
		}

		err := flow.Next(ctx)
		switch {
		case err == nil:
			// moved on, or submitted

		case errors.Is(err, formflow.ErrEmailRequired), errors.Is(err, formflow.ErrInvalidEmail):
			fmt.Print("Your email address: ")
			if !in.Scan() {
				return
			}
			if err := flow.SetEmail(in.Text()); err != nil {
				fmt.Println("  !", err)
			}

		default:
			var verr *formflow.ValidationError
			if errors.As(err, &verr) {
				fmt.Println("  !", verr.Message)
				continue
			}
			fmt.Println("  ! submission failed:", err)
			fmt.Print("Retry? [y/N] ")
			if !in.Scan() || strings.ToLower(strings.TrimSpace(in.Text())) != "y" {
				return
			}
			if err := flow.Retry(ctx); err != nil {
				fmt.Println("  ! still failing:", err)
				return
			}
		}
	}

	if flow.State() == formflow.Completed {
		fmt.Println("\nThank you! Your response was recorded.")
		fmt.Println("Your personal token:", flow.Token())
		fmt.Println("Review your answers:", strings.TrimRight(apiURL, "/")+"/answers/"+flow.Token())
	}
}

func printQuestion(q model.Question, step, total int) {
	fmt.Printf("\n[%d/%d] Q%d. %s\n", step, total, q.QuestionNumber, q.QuestionText)
	if q.QuestionType == model.QuestionSingleChoice {
		for _, o := range q.Options {
			fmt.Println("  -", o)
		}
	}
	if q.QuestionType == model.QuestionNumericScale {
		r := q.Rules()
		if r.MinValue != nil && r.MaxValue != nil {
			fmt.Printf("  (scale %v to %v)\n", *r.MinValue, *r.MaxValue)
		}
	}
}
