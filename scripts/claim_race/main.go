// Command claim_race fires one claim per student at the same enrollment link
// and fails when more students got a seat than the link offered.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

type attempt struct {
	StudentID string
	Status    int
	Result    models.ClaimResult
	Duration  time.Duration
	Error     error
}

func main() {
	var (
		base     string
		prefix   string
		token    string
		students string
		secret   string
		clubID   string
		spots    int
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.StringVar(&token, "token", "", "Enrollment token to claim")
	flag.StringVar(&students, "students", "", "Comma separated student IDs, one claim each")
	flag.StringVar(&secret, "jwt-secret", os.Getenv("JWT_SECRET"), "Secret used to sign student access tokens")
	flag.StringVar(&clubID, "club", "", "Club ID placed in the access tokens")
	flag.IntVar(&spots, "spots", 0, "Spots the link offers; more successes than this fails the run")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	ids := splitIDs(students)
	if token == "" || len(ids) == 0 || secret == "" {
		log.Fatal("token, students and jwt-secret are required")
	}

	client := &http.Client{Timeout: timeout}
	url := strings.TrimRight(base, "/") + prefix + "/enroll/" + token

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		attempts []attempt
	)
	start := make(chan struct{})
	for _, id := range ids {
		bearer, err := signStudent(secret, id, clubID)
		if err != nil {
			log.Fatalf("sign token for %s: %v", id, err)
		}
		wg.Add(1)
		go func(id, bearer string) {
			defer wg.Done()
			<-start
			a := claim(client, url, id, bearer)
			mu.Lock()
			attempts = append(attempts, a)
			mu.Unlock()
		}(id, bearer)
	}
	close(start)
	wg.Wait()

	successes := printReport(attempts)
	if spots > 0 && successes > spots {
		fmt.Printf("OVERSOLD: %d successes for %d spots\n", successes, spots)
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func signStudent(secret, studentID, clubID string) (string, error) {
	now := time.Now()
	claims := models.JWTClaims{
		UserID:    "race-" + studentID,
		Role:      models.RoleStudent,
		StudentID: studentID,
		ClubID:    clubID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func claim(client *http.Client, url, studentID, bearer string) attempt {
	a := attempt{StudentID: studentID}
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		a.Error = err
		return a
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	started := time.Now()
	resp, err := client.Do(req)
	a.Duration = time.Since(started)
	if err != nil {
		a.Error = err
		return a
	}
	defer resp.Body.Close()

	a.Status = resp.StatusCode
	if err := json.NewDecoder(resp.Body).Decode(&a.Result); err != nil {
		a.Error = fmt.Errorf("decode body: %w", err)
	}
	return a
}

func printReport(attempts []attempt) int {
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].StudentID < attempts[j].StudentID })

	outcomes := map[string]int{}
	successes := 0
	for _, a := range attempts {
		switch {
		case a.Error != nil:
			fmt.Printf("%-20s ERROR %v\n", a.StudentID, a.Error)
			outcomes["error"]++
		case a.Result.Success:
			fmt.Printf("%-20s %d success participant=%s (%s)\n", a.StudentID, a.Status, a.Result.ParticipantID, a.Duration)
			outcomes["success"]++
			successes++
		default:
			fmt.Printf("%-20s %d %s (%s)\n", a.StudentID, a.Status, a.Result.Reason, a.Duration)
			outcomes[string(a.Result.Reason)]++
		}
	}

	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %d\n", k, outcomes[k])
	}
	return successes
}
