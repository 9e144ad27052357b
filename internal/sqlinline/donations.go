package sqlinline

const QInsertDonation = `--sql 7ea88fbd-52c6-4717-a6e2-150f6229bdba
insert into donations (id, campaign_id, user_id, amount, currency, status, payment_method, external_session_id,
                       external_payment_intent_id, transaction_id, receipt_id, refund_amount, refund_reason,
                       donor_name, donor_email, is_anonymous, message, metadata, created_at, processed_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::bigint, $5::text, $6::text, $7::text, nullif($8::text, ''),
        nullif($9::text, ''), $10::text, $11::text, 0, '', $12::text, $13::text, $14::boolean, $15::text,
        coalesce($16::jsonb, '{}'::jsonb), now(), $17::timestamptz, now())
returning created_at, updated_at;
`

const QSelectDonationByID = `--sql 006d741f-0dbb-4f40-aca3-cf775640e6ac
select id, campaign_id, user_id, amount, currency, status, payment_method, external_session_id,
       external_payment_intent_id, transaction_id, receipt_id, refund_amount, refund_reason, donor_name,
       donor_email, is_anonymous, message, metadata, created_at, processed_at, updated_at
from donations
where id = $1::uuid
limit 1;
`

const QSelectDonationBySession = `--sql d7293163-0734-49fb-a975-424156053c6f
select id, campaign_id, user_id, amount, currency, status, payment_method, external_session_id,
       external_payment_intent_id, transaction_id, receipt_id, refund_amount, refund_reason, donor_name,
       donor_email, is_anonymous, message, metadata, created_at, processed_at, updated_at
from donations
where external_session_id = $1::text
limit 1;
`

const QSelectDonationByPaymentIntent = `--sql 88204b77-7c66-4208-a432-e009a8d62564
select id, campaign_id, user_id, amount, currency, status, payment_method, external_session_id,
       external_payment_intent_id, transaction_id, receipt_id, refund_amount, refund_reason, donor_name,
       donor_email, is_anonymous, message, metadata, created_at, processed_at, updated_at
from donations
where external_payment_intent_id = $1::text
order by created_at asc
limit 1;
`

// QUpdateDonationStatus is a compare-and-set on the previous status.
const QUpdateDonationStatus = `--sql 374d5a98-8cd2-4337-a297-578920338dbb
update donations
set status = $3::text,
    processed_at = coalesce(processed_at, $4::timestamptz),
    updated_at = now()
where id = $1::uuid
  and status = $2::text
returning id::text;
`

const QUpdateDonationRefund = `--sql 2098d315-ccf3-46d6-94f3-e994c16c0c24
update donations
set refund_amount = $3::bigint,
    status = $4::text,
    refund_reason = case when $5::text = '' then refund_reason else $5::text end,
    updated_at = now()
where id = $1::uuid
  and status = 'completed'
  and refund_amount = $2::bigint
returning id::text;
`

const QListDonationsByUser = `--sql d784af59-b13c-44aa-8c98-d81b592b3f5c
select id, campaign_id, user_id, amount, currency, status, payment_method, external_session_id,
       external_payment_intent_id, transaction_id, receipt_id, refund_amount, refund_reason, donor_name,
       donor_email, is_anonymous, message, metadata, created_at, processed_at, updated_at
from donations
where user_id = $1::text
order by created_at desc
limit $2::int offset $3::int;
`

const QCountDonationsByUser = `--sql 45a11df5-3518-411d-9897-d0d36fd41461
select count(*)::int
from donations
where user_id = $1::text;
`

const QListDonationsByCampaign = `--sql 1a749354-9950-49bd-a27c-4a37897b64e2
select id, campaign_id, user_id, amount, currency, status, payment_method, external_session_id,
       external_payment_intent_id, transaction_id, receipt_id, refund_amount, refund_reason, donor_name,
       donor_email, is_anonymous, message, metadata, created_at, processed_at, updated_at
from donations
where campaign_id = $1::uuid
  and ($2::text = '' or status = $2::text)
order by created_at desc
limit $3::int offset $4::int;
`

const QCountDonationsByCampaign = `--sql c6a8cf39-29a2-4848-b777-d2bba9358d61
select count(*)::int
from donations
where campaign_id = $1::uuid
  and ($2::text = '' or status = $2::text);
`

const QDonationStatsTotals = `--sql b5ae740b-2d84-455d-8e29-66c4c7fc6584
select count(*)::int,
       coalesce(sum(amount - refund_amount), 0)::bigint,
       count(distinct user_id)::int
from donations
where status = 'completed'
  and ($1::text = '' or campaign_id = nullif($1::text, '')::uuid)
  and ($2::timestamptz is null or created_at >= $2::timestamptz);
`

const QDonationStatsByMethod = `--sql 2e8eb43f-e731-42b2-b421-8fbac625b0ca
select payment_method,
       count(*)::int,
       coalesce(sum(amount - refund_amount), 0)::bigint
from donations
where status = 'completed'
  and ($1::text = '' or campaign_id = nullif($1::text, '')::uuid)
  and ($2::timestamptz is null or created_at >= $2::timestamptz)
group by payment_method
order by 3 desc, payment_method asc;
`

const QDonationStatsDaily = `--sql c039e5ed-a1be-4db6-aae9-46de9f232cf3
select to_char(date_trunc('day', created_at at time zone 'UTC'), 'YYYY-MM-DD'),
       count(*)::int,
       coalesce(sum(amount - refund_amount), 0)::bigint
from donations
where status = 'completed'
  and ($1::text = '' or campaign_id = nullif($1::text, '')::uuid)
  and ($2::timestamptz is null or created_at >= $2::timestamptz)
group by 1
order by 1 asc;
`
